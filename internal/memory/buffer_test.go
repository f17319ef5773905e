package memory

import (
	"strings"
	"testing"

	"github.com/docchat/docchat/internal/llm"
)

func TestBuffer_AddAndMessages(t *testing.T) {
	b := NewBuffer("gpt-4o-mini", 0)
	b.AddUser("question")
	b.AddAssistant("answer")

	msgs := b.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != llm.RoleUser || msgs[1].Role != llm.RoleAssistant {
		t.Errorf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}

	// Mutating the returned slice must not affect the buffer.
	msgs[0].Content = "mutated"
	if b.Messages()[0].Content != "question" {
		t.Error("Messages returned a view into internal state")
	}
}

func TestBuffer_BudgetedDropsOldestFirst(t *testing.T) {
	b := NewBuffer("gpt-4o-mini", 60)
	long := strings.Repeat("lorem ipsum ", 20)
	b.AddUser(long)
	b.AddAssistant(long)
	b.AddUser("latest question")

	budgeted := b.Budgeted()
	if len(budgeted) == 0 {
		t.Fatal("budgeted view is empty")
	}
	if len(budgeted) >= b.Len() {
		t.Errorf("budgeted kept %d of %d messages, expected trimming", len(budgeted), b.Len())
	}
	// The most recent message always survives.
	if budgeted[len(budgeted)-1].Content != "latest question" {
		t.Errorf("last = %q, want the latest question", budgeted[len(budgeted)-1].Content)
	}
	// Full history is untouched.
	if b.Len() != 3 {
		t.Errorf("Len = %d, want 3", b.Len())
	}
}

func TestBuffer_NoBudgetKeepsAll(t *testing.T) {
	b := NewBuffer("gpt-4o-mini", 0)
	for i := 0; i < 10; i++ {
		b.AddUser("message")
	}
	if got := len(b.Budgeted()); got != 10 {
		t.Errorf("got %d, want 10", got)
	}
}

func TestBuffer_Clear(t *testing.T) {
	b := NewBuffer("gpt-4o-mini", 0)
	b.AddUser("a")
	b.Clear()
	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
}
