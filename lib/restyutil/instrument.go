package restyutil

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// InstrumentOutput receives one formatted HTTP exchange per request.
type InstrumentOutput interface {
	Write(id string, contents string)
}

type messageIdKeyType int

var messageIdKey messageIdKeyType

type instrumentCtx struct {
	output    InstrumentOutput
	idcounter *uint64
}

// InstrumentClient writes every request/response pair made by `client` to `output`.
// `output` can be nil, if it is, then the function is a no-op
func InstrumentClient(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	i := instrumentCtx{output: output, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	messageId := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
	ctx := context.WithValue(req.Context(), messageIdKey, messageId)
	slog.DebugContext(
		ctx, "start request",
		"method", req.Method,
		"url", req.URL,
		"message_id", messageId,
	)
	req.SetContext(ctx)
	return nil
}

func messageId(ctx context.Context) string {
	id, ok := ctx.Value(messageIdKey).(string)
	if !ok {
		return "unknown"
	}
	return id
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	id := messageId(ctx)

	i.output.Write(id, formatHttpMessage(res))
	slog.DebugContext(
		ctx, "request succeeded",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.StatusCode(),
		"message_id", id,
	)
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	ctx := req.Context()
	id := messageId(ctx)

	i.output.Write(id, formatHttpRequest(req))
	slog.DebugContext(
		ctx, "request failed",
		"method", req.Method,
		"url", req.URL,
		"err", err,
		"message_id", id,
	)
}
