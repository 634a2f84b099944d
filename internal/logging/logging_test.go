package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewFormatterByEnv(t *testing.T) {
	dev := New("dev", "debug")
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())

	prod := New("prod", "nonsense")
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)
	assert.Equal(t, logrus.InfoLevel, prod.GetLevel())
}
