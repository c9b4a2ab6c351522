package kernel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"lion.run/lion/executor"
	"lion.run/lion/ids"
	"lion.run/lion/kernel"
	"lion.run/lion/policy"
)

func denyInvokeRule(subject string) policy.Rule {
	return policy.Rule{
		ID: "deny-" + subject, Subject: subject, Object: "*", Action: "invoke",
		Effect: policy.EffectDeny, Priority: 10, Source: "test",
	}
}

func echoHandler(_ context.Context, req executor.Request, _ executor.HostCaller, _ executor.Emitter) ([]byte, error) {
	return append([]byte("echo:"), req.Input...), nil
}

func TestLoadCallUnloadPluginHappyPath(t *testing.T) {
	rt := kernel.New(kernel.Options{})
	ctx := context.Background()
	correlation := ids.NewCorrelationID()

	manifest := []byte(`{"name":"echo","entry_point":"./echo.wasm","permissions":["net"]}`)
	pluginID, cerr := rt.LoadPlugin(ctx, correlation, manifest, echoHandler)
	require.Nil(t, cerr)
	require.False(t, pluginID.IsNil())

	result, cerr := rt.CallPlugin(ctx, correlation, pluginID, []byte("hi"), executor.ResourceLimits{})
	require.Nil(t, cerr)
	require.Equal(t, "echo:hi", string(result))

	require.Nil(t, rt.UnloadPlugin(ctx, correlation, pluginID))

	_, cerr = rt.CallPlugin(ctx, correlation, pluginID, []byte("hi"), executor.ResourceLimits{})
	require.NotNil(t, cerr)
}

func TestLoadPluginRejectsUnrecognizedPermission(t *testing.T) {
	rt := kernel.New(kernel.Options{})
	ctx := context.Background()

	manifest := []byte(`{"name":"bad","entry_point":"./bad.wasm","permissions":["forbidden"]}`)
	_, cerr := rt.LoadPlugin(ctx, ids.NewCorrelationID(), manifest, echoHandler)
	require.NotNil(t, cerr)

	stats, err := rt.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, stats.LoadedCount)
}

func TestCallPluginDeniedByExplicitPolicyRule(t *testing.T) {
	rt := kernel.New(kernel.Options{})
	ctx := context.Background()
	correlation := ids.NewCorrelationID()

	manifest := []byte(`{"name":"echo","entry_point":"./echo.wasm","permissions":[]}`)
	pluginID, cerr := rt.LoadPlugin(ctx, correlation, manifest, echoHandler)
	require.Nil(t, cerr)

	rt.AddPolicyRule(denyInvokeRule(pluginID.String()))

	_, cerr = rt.CallPlugin(ctx, correlation, pluginID, []byte("hi"), executor.ResourceLimits{})
	require.NotNil(t, cerr)
}

func TestUnloadUnknownPluginReturnsInputError(t *testing.T) {
	rt := kernel.New(kernel.Options{})
	ctx := context.Background()
	cerr := rt.UnloadPlugin(ctx, ids.NewCorrelationID(), ids.NewPluginID())
	require.NotNil(t, cerr)
}

func TestPolicyRuleCRUD(t *testing.T) {
	rt := kernel.New(kernel.Options{})
	require.Len(t, rt.ListPolicyRules(), 1) // the baseline system.default-invoke rule

	rt.AddPolicyRule(denyInvokeRule("plugin-x"))
	require.Len(t, rt.ListPolicyRules(), 2)

	require.Nil(t, rt.RemovePolicyRule("deny-plugin-x"))
	require.Len(t, rt.ListPolicyRules(), 1)

	require.NotNil(t, rt.RemovePolicyRule("no-such-rule"))
}
