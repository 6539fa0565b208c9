package component

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagebuilder/api/internal/layout"
)

func decodePayload(t *testing.T, raw string) Payload {
	t.Helper()
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func TestSplitSeparatesFieldsFromStyle(t *testing.T) {
	p := decodePayload(t, `{
		"id": "child",
		"parent": "root",
		"left": 20, "top": 10, "width": 100, "height": 50,
		"backgroundColor": "#fff",
		"borderRadius": 4,
		"shadow": {"x": 1, "y": 2}
	}`)

	fields, style, err := Split(p)
	require.NoError(t, err)

	require.NotNil(t, fields.Parent)
	assert.Equal(t, "root", *fields.Parent)
	assert.Equal(t, "child", fields.CompID)
	assert.Equal(t, layout.Box{Left: 20, Top: 10, Width: 100, Height: 50}, fields.Box)
	assert.Equal(t, layout.Style{
		"backgroundColor": "#fff",
		"borderRadius":    float64(4),
		"shadow":          map[string]any{"x": float64(1), "y": float64(2)},
	}, style)
}

func TestSplitKeepsPageAsStyle(t *testing.T) {
	p := decodePayload(t, `{"id":"a","parent":null,"left":0,"top":0,"width":1,"height":1,"page":"Home","color":"red"}`)

	fields, style, err := Split(p)
	require.NoError(t, err)
	assert.Nil(t, fields.Parent)
	assert.Equal(t, layout.Style{"page": "Home", "color": "red"}, style)

	_, style, err = Split(StripPage(p))
	require.NoError(t, err)
	assert.Equal(t, layout.Style{"color": "red"}, style)
	assert.Equal(t, "Home", p[KeyPage])
}

func TestComposeAfterSplitIsIdentity(t *testing.T) {
	payloads := []string{
		`{"id":"root","parent":null,"left":0,"top":0,"width":200,"height":100}`,
		`{"id":"child","parent":"root","left":20,"top":10,"width":100,"height":50,"color":"red","opacity":0.5}`,
		`{"id":"x","parent":"y","left":-3,"top":7,"width":0,"height":0,"nested":{"a":[1,2,3]},"visible":true}`,
		`{"id":"a","parent":null,"left":0,"top":0,"width":1,"height":1,"page":"landing"}`,
	}
	for _, raw := range payloads {
		p := decodePayload(t, raw)
		fields, style, err := Split(p)
		require.NoError(t, err)

		roundTrip, err := json.Marshal(Compose(fields, style))
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(roundTrip))
	}
}

func TestComposeDoesNotShareStyle(t *testing.T) {
	style := layout.Style{"color": "red"}
	out := Compose(Fields{CompID: "a"}, style)
	out["color"] = "blue"
	assert.Equal(t, "red", style["color"])
	assert.Nil(t, out[KeyParent])
}

func TestValidateRejectsMalformedPayloads(t *testing.T) {
	cases := map[string]string{
		"missing id":         `{"parent":null,"left":0,"top":0,"width":1,"height":1}`,
		"missing parent":     `{"id":"a","left":0,"top":0,"width":1,"height":1}`,
		"missing geometry":   `{"id":"a","parent":null,"left":0,"top":0,"width":1}`,
		"string geometry":    `{"id":"a","parent":null,"left":"0","top":0,"width":1,"height":1}`,
		"fractional width":   `{"id":"a","parent":null,"left":0,"top":0,"width":1.5,"height":1}`,
		"numeric id":         `{"id":7,"parent":null,"left":0,"top":0,"width":1,"height":1}`,
		"empty id":           `{"id":"","parent":null,"left":0,"top":0,"width":1,"height":1}`,
		"boolean parent":     `{"id":"a","parent":false,"left":0,"top":0,"width":1,"height":1}`,
		"out of range left":  `{"id":"a","parent":null,"left":3000000000,"top":0,"width":1,"height":1}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Split(decodePayload(t, raw))
			require.ErrorIs(t, err, ErrInvalid)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.NotEmpty(t, vErr.Reason)
		})
	}
}

func TestValidateAcceptsGoBuiltPayload(t *testing.T) {
	p := Payload{"id": "a", "parent": nil, "left": 1, "top": 2, "width": 3, "height": 4}
	require.NoError(t, Validate(p))

	fields, _, err := Split(p)
	require.NoError(t, err)
	assert.Equal(t, layout.Box{Left: 1, Top: 2, Width: 3, Height: 4}, fields.Box)
}

func TestPageTitle(t *testing.T) {
	title, err := PageTitle(Payload{"page": "Home"})
	require.NoError(t, err)
	assert.Equal(t, "Home", title)

	_, err = PageTitle(Payload{"page": 3.0})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = PageTitle(Payload{})
	require.ErrorIs(t, err, ErrInvalid)
}
