package shm

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func (s *ConfigTestSuite) TestVerifyConfig() {
	s.Require().Error(VerifyConfig(nil))

	config := DefaultConfig()
	err := VerifyConfig(config)
	s.Require().True(errors.Is(err, ErrInvalidConfig))

	config.Name = "verify"
	s.Require().NoError(VerifyConfig(config))

	config.Platform = nil
	s.Require().True(errors.Is(VerifyConfig(config), ErrInvalidConfig))
}

func (s *ConfigTestSuite) TestDefaultConfig() {
	config := DefaultConfig()
	s.NotNil(config.Platform)
	s.NotNil(config.Meter)
	s.NotNil(config.Tracer)
	s.NotNil(config.Observer)
	s.False(config.LogWarnings)
	s.Empty(config.Name)
}

func (s *ConfigTestSuite) TestWithDefaultsKeepsExplicitFields() {
	p := NewMemoryPlatform()
	obs := &recordingObserver{}
	c := Config{Name: "keep", Platform: p, Observer: obs}.withDefaults()
	s.Same(p, c.Platform)
	s.Same(obs, c.Observer)
	s.NotNil(c.Meter)
	s.NotNil(c.Tracer)
}

func (s *ConfigTestSuite) TestCheckPlainDataNamesTheOffendingField() {
	type inner struct {
		Ok   uint16
		Name string
	}
	type outer struct {
		A     float64
		Inner [3]inner
	}
	err := checkPlainData(reflect.TypeFor[outer]())
	s.Require().True(errors.Is(err, ErrInvalidType))
	s.Contains(err.Error(), ".Inner[].Name")
	s.Contains(err.Error(), "string")

	s.NoError(checkPlainData(reflect.TypeFor[[4]complex64]()))
	s.Error(checkPlainData(nil))
}

func (s *ConfigTestSuite) TestErrorClass() {
	s.Equal("acquire", errorClass(ErrAcquire))
	s.Equal("size", errorClass(ErrSize))
	s.Equal("map", errorClass(ErrMap))
	s.Equal("unknown", errorClass(errors.New("other")))
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
