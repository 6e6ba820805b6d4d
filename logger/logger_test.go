package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	assert.NoError(t, Init("debug"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.NoError(t, Init("warn"))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	assert.Error(t, Init("loud"))
}
