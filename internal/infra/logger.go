package infra

import "go.uber.org/zap"

// NewLogger returns a JSON production logger unless env is "development".
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
