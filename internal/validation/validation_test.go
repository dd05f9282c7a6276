package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoginValidationEmail(t *testing.T) {
	t.Parallel()

	v := LoginValidation()

	cases := []struct {
		name  string
		value string
		want  string
	}{
		{name: "empty", value: "", want: MessageRequired},
		{name: "blank", value: "   ", want: MessageRequired},
		{name: "missing at", value: "foo.bar.com", want: MessageInvalid},
		{name: "missing domain dot", value: "foo@bar", want: MessageInvalid},
		{name: "display name", value: "Foo <foo@bar.com>", want: MessageInvalid},
		{name: "valid", value: "foo@bar.com", want: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := v.Validate("email", map[string]string{"email": tc.value})
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLoginValidationPassword(t *testing.T) {
	t.Parallel()

	v := LoginValidation()

	require.Equal(t, MessageRequired, v.Validate("password", map[string]string{}))
	require.Equal(t, MessageInvalid, v.Validate("password", map[string]string{"password": "abcd"}))
	require.Equal(t, "", v.Validate("password", map[string]string{"password": "abc123"}))
}

func TestCompositeFieldsAreIndependent(t *testing.T) {
	t.Parallel()

	v := LoginValidation()
	values := map[string]string{"email": "", "password": "abc123"}

	require.Equal(t, MessageRequired, v.Validate("email", values))
	require.Equal(t, "", v.Validate("password", values))
}

func TestCompositeUnknownFieldIsValid(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", LoginValidation().Validate("nickname", map[string]string{}))

	var nilComposite *Composite
	require.Equal(t, "", nilComposite.Validate("email", nil))
}

func TestCompositeFirstFailureWins(t *testing.T) {
	t.Parallel()

	v := NewComposite(Field("password").Required().MinLength(8).Build()...)
	require.Equal(t, MessageRequired, v.Validate("password", map[string]string{"password": ""}))
	require.Equal(t, MessageInvalid, v.Validate("password", map[string]string{"password": "short"}))
}
