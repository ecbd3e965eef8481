package httpapi

import "testing"

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 16<<20 {
		t.Fatalf("expected default 16MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 16<<20 {
		t.Fatalf("expected default 16MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetMaxBodyBytes_PositiveSetsValue(t *testing.T) {
	SetMaxBodyBytes(1234)
	defer SetMaxBodyBytes(0)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestSetRequestTimeoutSeconds_NormalizesNegativeToZero(t *testing.T) {
	defer SetRequestTimeoutSeconds(0)
	SetRequestTimeoutSeconds(-5)
	if requestTimeout != 0 {
		t.Fatalf("expected 0, got %d", requestTimeout)
	}
	SetRequestTimeoutSeconds(3)
	if requestTimeout != 3 {
		t.Fatalf("expected 3, got %d", requestTimeout)
	}
}

func TestSetCORSOptions_EmptyListsKeepDefaults(t *testing.T) {
	defer SetCORSOptions(true, []string{"*"}, nil, nil)
	SetCORSOptions(true, []string{"http://localhost:3000"}, nil, nil)
	if len(corsAllowedOrigins) != 1 || corsAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("origins=%v", corsAllowedOrigins)
	}
	if len(corsAllowedMethods) != 3 {
		t.Fatalf("methods=%v", corsAllowedMethods)
	}
}
