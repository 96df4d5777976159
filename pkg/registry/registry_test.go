package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ussdgw/pkg/actions"
	"github.com/marmos91/ussdgw/pkg/session"
)

type fakeModule struct{}

func (fakeModule) ProcessPinOrForgot(input string, access *session.Access, ctx actions.Context) (*actions.Result, error) {
	if input == "boom" {
		return nil, errors.New("kaboom")
	}
	return &actions.Result{Action: "con", Message: "got " + input}, nil
}

func (fakeModule) notExported(input string, access *session.Access, ctx actions.Context) (*actions.Result, error) {
	return nil, nil
}

func (fakeModule) WrongSignature() string { return "nope" }

func TestRegisterModuleEnumeratesHandlerShapedMethods(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterModule("pin", fakeModule{}))

	assert.Equal(t, 1, r.Count())
	assert.Contains(t, r.List(), "pin.ProcessPinOrForgot")
}

func TestRegisterModuleRejectsNoHandlerMethods(t *testing.T) {
	r := New()
	err := r.RegisterModule("empty", struct{}{})
	assert.Error(t, err)
}

func TestAliasResolvesBeforeDirect(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterModule("pin", fakeModule{}))
	require.NoError(t, r.Alias("process_pin", "pin.ProcessPinOrForgot"))

	fn, ok := r.Lookup("process_pin")
	require.True(t, ok)
	result, err := fn("1234", nil, actions.Context{})
	require.NoError(t, err)
	assert.Equal(t, "got 1234", result.Message)
}

func TestAliasUnknownTargetFails(t *testing.T) {
	r := New()
	err := r.Alias("short", "pin.DoesNotExist")
	assert.Error(t, err)
}

func TestInvokeUnregisteredReturnsUniformFailure(t *testing.T) {
	r := New()
	result := r.Invoke("pin.Missing", "1234", nil, actions.Context{})
	assert.True(t, result.Error != "")
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestInvokeHandlerErrorReturnsUniformFailure(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterModule("pin", fakeModule{}))

	result := r.Invoke("pin.ProcessPinOrForgot", "boom", nil, actions.Context{})
	assert.Equal(t, "HANDLER_ERROR", result.Error)
	assert.Equal(t, "kaboom", result.ErrorMessage)
}

func TestRegisterModuleDuplicateNameFails(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterModule("pin", fakeModule{}))
	err := r.RegisterModule("pin", fakeModule{})
	assert.Error(t, err)
}
