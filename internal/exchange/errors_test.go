package exchange

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		status int
		code   string
		want   Kind
	}{
		{401, "", KindAuth},
		{403, "", KindAuth},
		{400, "40001", KindAuth},
		{400, "40037", KindAuth},
		{429, "", KindTransient},
		{500, "", KindTransient},
		{503, "", KindTransient},
		{400, "40762", KindRejected}, // insufficient margin
		{200, "22001", KindRejected},
	}
	for _, c := range cases {
		if got := classify(c.status, c.code); got != c.want {
			t.Fatalf("classify(%d, %q) = %v, want %v", c.status, c.code, got, c.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	auth := &APIError{Kind: KindAuth, Code: "40001", Message: "invalid key"}
	if KindOf(auth) != KindAuth {
		t.Fatalf("expected auth kind")
	}
	if !IsAuth(fmt.Errorf("place order: %w", auth)) {
		t.Fatalf("wrapped auth error not detected")
	}
	rej := &APIError{Kind: KindRejected, Status: 400, Message: "size too small"}
	if !IsRejected(rej) {
		t.Fatalf("expected rejected kind")
	}
	if KindOf(context.DeadlineExceeded) != KindTransient {
		t.Fatalf("deadline should be transient")
	}
	if KindOf(errors.New("connection reset")) != KindTransient {
		t.Fatalf("unknown errors default to transient")
	}
	if IsAuth(nil) || IsRejected(nil) {
		t.Fatalf("nil error must not classify")
	}
}
