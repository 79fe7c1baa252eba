package notify

import "mvr-docstatus/lib/telemetry"

var tracer = telemetry.Tracer("mvr-docstatus/lib/notify")
