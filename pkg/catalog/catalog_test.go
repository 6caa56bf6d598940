package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userCreatedData struct {
	Email string `validate:"required,email"`
	Given string `validate:"required"`
}

func TestCatalogRegisterGetHas(t *testing.T) {
	c := New()
	assert.False(t, c.Has("user:created"))

	c.Register(EventType{Type: "user:created", DataSchema: NewStructSchema()})
	assert.True(t, c.Has("user:created"))

	et, ok := c.Get("user:created")
	require.True(t, ok)
	assert.Equal(t, "user:created", et.Type)
}

func TestCatalogValidateUnknownType(t *testing.T) {
	c := New()
	err := c.Validate("rec-1", "nope", nil, nil)
	require.Error(t, err)

	var unknown *ErrUnknownType
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope", unknown.Type)
}

func TestCatalogValidateAcceptsWellFormedData(t *testing.T) {
	c := New()
	c.Register(EventType{Type: "user:created", DataSchema: NewStructSchema()})

	err := c.Validate("rec-1", "user:created", userCreatedData{Email: "a@x.com", Given: "Ada"}, nil)
	assert.NoError(t, err)
}

func TestCatalogValidateRejectsMalformedData(t *testing.T) {
	c := New()
	c.Register(EventType{Type: "user:created", DataSchema: NewStructSchema()})

	err := c.Validate("rec-1", "user:created", userCreatedData{Email: "not-an-email"}, nil)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.Issues)
}

func TestCatalogValidateDataWithoutSchemaIsAnIssue(t *testing.T) {
	c := New()
	c.Register(EventType{Type: "user:created"})

	err := c.Validate("rec-1", "user:created", map[string]any{"email": "a@x.com"}, nil)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Issues[0], "data")
}

func TestCatalogValidateNilPayloadsSkipSchema(t *testing.T) {
	c := New()
	c.Register(EventType{Type: "user:deleted"})
	err := c.Validate("rec-1", "user:deleted", nil, nil)
	assert.NoError(t, err)
}

func TestRenderIssuesOrdersByDepthAndEscapesDots(t *testing.T) {
	issues := []Issue{
		{Path: []string{"data", "address", "city"}, Message: "required"},
		{Message: "record does not belong to type"},
		{Path: []string{"data", "a.b"}, Message: "required"},
	}

	lines := RenderIssues(issues)
	require.Len(t, lines, 3)
	assert.Equal(t, "- record does not belong to type", lines[0])
	assert.Contains(t, lines[1], `data.["a.b"]`)
	assert.Contains(t, lines[2], "data.address.city")
}
