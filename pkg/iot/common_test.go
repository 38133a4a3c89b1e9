package iot

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/iwown-health-service/pkg/db"
	"liyu1981.xyz/iwown-health-service/pkg/iot/mocks"
)

var testNow = time.Date(2025, 3, 1, 8, 30, 0, 123456000, time.UTC)

// GetMockIOTWithMemorySqliteDialector builds an IOT over a private in-memory
// sqlite store with a mocked post-processor.
func GetMockIOTWithMemorySqliteDialector(t *testing.T) (
	*gomock.Controller,
	*IOT,
	*mocks.MockIPostProcessor,
) {
	ctrl := gomock.NewController(t)

	store, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)

	mockPostProcessor := mocks.NewMockIPostProcessor(ctrl)
	iotInstance := &IOT{
		Store: store,
		Now:   func() time.Time { return testNow },
	}
	iotInstance.WithServices(ServiceOpts{
		Ingest:        iotInstance.GetIIngest(),
		Dashboard:     iotInstance.GetIDashboard(),
		PostProcessor: mockPostProcessor,
	})

	return ctrl, iotInstance, mockPostProcessor
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

func findLog(logs []any, msg string) map[string]any {
	for _, l := range logs {
		if m, ok := l.(map[string]any); ok && m["msg"] == msg {
			return m
		}
	}
	return nil
}
