package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestQueryBuilders(t *testing.T) {
	q := Contains("Ochko228").Ancestors().Within("img").OnlyVisible()
	assert.Equal(t, "Ochko228", q.Text)
	assert.Equal(t, -1, q.Parents)
	assert.Equal(t, "img", q.Find)
	assert.True(t, q.Visible)
	assert.Equal(t, `contains("Ochko228").parents().find(img).filter(:visible)`, q.String())

	q2 := CSS(`img[alt="avatar"]`).Up(2).Within(`[aria-label="mini-btn"]`)
	assert.Equal(t, `get(img[alt="avatar"]).parent()x2.find([aria-label="mini-btn"])`, q2.String())

	q3 := Matches("^(Log in|Login)$", "i")
	assert.Equal(t, "contains(/^(Log in|Login)$/i)", q3.String())
}

func TestExpressionEmbedsQueryJSON(t *testing.T) {
	q := CSS(`input[name="username"]`, "#username").OnlyVisible()
	expr, err := q.Expression()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(expr, "(function(q){"))

	arg := expr[strings.LastIndex(expr, ")(")+2 : len(expr)-1]
	require.True(t, gjson.Valid(arg), arg)
	assert.Equal(t, `input[name="username"]`, gjson.Get(arg, "selectors.0").String())
	assert.Equal(t, "#username", gjson.Get(arg, "selectors.1").String())
	assert.True(t, gjson.Get(arg, "visible").Bool())
	assert.False(t, gjson.Get(arg, "parents").Exists())
}

func TestRefHelpers(t *testing.T) {
	e := Element{Ref: "e3", Attrs: map[string]string{"src": "a.png"}}
	assert.Equal(t, `[data-e2e-ref="e3"]`, e.RefSelector())
	v, ok := e.Attr("src")
	assert.True(t, ok)
	assert.Equal(t, "a.png", v)

	expr := RefExpression("e3", "return el.value;")
	assert.Contains(t, expr, `document.querySelector("[data-e2e-ref=\"e3\"]")`)
	assert.Contains(t, expr, "return el.value;")
}
