package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassificationString(t *testing.T) {
	require.Equal(t, "NORMAL", Normal.String())
	require.Equal(t, "ALERT", Alert.String())
	require.Equal(t, "UNKNOWN", Classification(42).String())
}

func TestWithCycle(t *testing.T) {
	var null Logger = &NullLogger{}
	require.Same(t, null, WithCycle(null, "abc"))

	sugared := zap.NewNop().Sugar()
	require.IsType(t, &zap.SugaredLogger{}, WithCycle(sugared, "abc"))
}
