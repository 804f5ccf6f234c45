package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requests(keys ...string) []Request {
	out := make([]Request, len(keys))
	for i, k := range keys {
		out[i] = Request{Key: k, Method: "m"}
	}
	return out
}

func TestAssignKeys(t *testing.T) {
	testCases := []struct {
		name     string
		keys     []string
		expected []string
	}{
		{name: "unique", keys: []string{"a", "b"}, expected: []string{"a", "b"}},
		{name: "duplicates", keys: []string{"foo", "foo", "bar"}, expected: []string{"foo", "foo_1", "bar"}},
		{name: "many duplicates", keys: []string{"x", "x", "x", "x"}, expected: []string{"x", "x_1", "x_2", "x_3"}},
		{name: "suffix already taken", keys: []string{"foo", "foo_1", "foo"}, expected: []string{"foo", "foo_1", "foo_2"}},
		{name: "explicit key collides with generated", keys: []string{"foo", "foo", "foo_1"}, expected: []string{"foo", "foo_1", "foo_1_1"}},
		{name: "empty key uses method", keys: []string{"", "m"}, expected: []string{"m", "m_1"}},
		{name: "empty", keys: nil, expected: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, AssignKeys(requests(tc.keys...)))
		})
	}
}

func TestFieldError(t *testing.T) {
	inner := errors.New("boom")
	err := error(&FieldError{Key: "foo_1", Err: inner})

	assert.EqualError(t, err, "foo_1: boom")
	require.ErrorIs(t, err, inner)
}
