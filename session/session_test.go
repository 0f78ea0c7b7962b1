package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Append_SlidingWindow(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 5; i++ {
		s.Append("k", RoleUser, fmt.Sprintf("message %d", i))
	}

	messages := s.History("k")
	require.Len(t, messages, 3)
	assert.Equal(t, "message 2", messages[0].Content)
	assert.Equal(t, "message 4", messages[2].Content)
}

func Test_FormatContext_WelcomeAnnotation(t *testing.T) {
	s := NewStore(0)
	s.Append("k", RoleUser, "hi")
	s.Append("k", RoleAssistant, "hello")
	s.Append("k", RoleUser, "x")

	got := s.FormatContext("k")
	want := "Utilisateur : hi" +
		"\n\nAssistant (message d'accueil, ne pas répéter) : hello" +
		"\n\nUtilisateur : x"
	assert.Equal(t, want, got)
}

func Test_FormatContext_NoAnnotationCases(t *testing.T) {
	// A user message at index 1 is never annotated.
	s := NewStore(0)
	s.Append("k", RoleUser, "un")
	s.Append("k", RoleUser, "deux")
	s.Append("k", RoleAssistant, "trois")

	got := s.FormatContext("k")
	assert.NotContains(t, got, "message d'accueil")

	// A single-message session has no index 1 to annotate.
	single := NewStore(0)
	single.Append("s", RoleUser, "seul")
	assert.Equal(t, "Utilisateur : seul", single.FormatContext("s"))
}

func Test_Clear(t *testing.T) {
	s := NewStore(0)
	s.Append("k", RoleUser, "bonjour")
	s.Append("k", RoleAssistant, "salut")

	s.Clear("k")

	assert.Zero(t, s.Len("k"))
	assert.Equal(t, "", s.FormatContext("k"))
}

func Test_Store_ConcurrentSessions(t *testing.T) {
	s := NewStore(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("session-%d", i)
			for j := 0; j < 20; j++ {
				s.Append(key, RoleUser, fmt.Sprintf("message %d", j))
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		assert.Equal(t, DefaultMaxHistory, s.Len(fmt.Sprintf("session-%d", i)))
	}
}
