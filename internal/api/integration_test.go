package api

import (
	"context"
	"os"
	"testing"
)

func TestIntegrationTargetState(t *testing.T) {
	server := os.Getenv("DIB_SERVER")
	if os.Getenv("DIB_INTEGRATION") == "" || server == "" {
		t.Skip("Set DIB_INTEGRATION=1 and DIB_SERVER to run integration tests")
	}

	client, err := NewClient(server)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	builds, err := client.TargetState(context.Background())
	if err != nil {
		t.Fatalf("TargetState: %v", err)
	}

	t.Logf("Found %d recorded builds", len(builds))
	for i, b := range builds {
		if i >= 5 {
			break
		}
		t.Logf("  %s %s [%s] %s", b.Nightly, b.Target, b.Mode, b.Status)
	}
}
