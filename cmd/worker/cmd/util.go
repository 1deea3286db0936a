package cmd

import (
	"os"

	"github.com/google/uuid"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/trace"
)

func newTraceStore(objects ports.ObjectStore, records ports.RecordStore) *trace.Store {
	return trace.New(objects, records)
}

func getenvOrEmpty(name string) string {
	return os.Getenv(name)
}

func randomSuffix() string {
	return uuid.NewString()[:8]
}
