package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parse(t *testing.T, doc string) *html.Node {
	node, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	return node
}

func TestJoinedText(t *testing.T) {
	node := parse(t, `<div>
		<strong>  Грешка: </strong>
		<span>Невалидна&nbsp;капча&nbsp;</span>
		<script>var x = 1;</script>
	</div>`)

	require.Equal(t, "Грешка: Невалидна капча", JoinedText(node, " "))
}

func TestGetTextSkipsScripts(t *testing.T) {
	node := parse(t, `<p>one<script>two</script>three</p>`)
	require.Equal(t, "onethree", GetText(node))
}

func TestNormalizeWhitespace(t *testing.T) {
	require.Equal(t, "a b c", NormalizeWhitespace("  a\n\t b\u00a0\u00a0c  "))
	require.Equal(t, "", NormalizeWhitespace(" \n "))
	require.Equal(t, "а б", NormalizeWhitespace("а\u00a0б"))
}
