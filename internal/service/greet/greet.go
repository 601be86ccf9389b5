package greet

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	serviceName = "greet"

	greetCount = 10
	Completed  = "Hello World completed"
)

type greetService struct {
	log *slog.Logger
}

func NewGreetService(log *slog.Logger) *greetService {
	return &greetService{
		log: log.With(slog.String("service", serviceName)),
	}
}

func (g *greetService) Greet(_ context.Context) (string, error) {
	for i := range greetCount {
		g.log.Info(fmt.Sprintf("Hello World %d", i))
	}

	return Completed, nil
}
