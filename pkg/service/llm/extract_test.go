package llm

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/soc-lab/kestrel/pkg/domain/model"
)

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Severity string `json:"severity"`
	}

	t.Run("bare JSON", func(t *testing.T) {
		var out payload
		gt.NoError(t, extractJSON(`{"severity": "High"}`, &out)).Required()
		gt.Equal(t, "High", out.Severity)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		var out payload
		reply := "```json\n{\"severity\": \"Critical\"}\n```"
		gt.NoError(t, extractJSON(reply, &out)).Required()
		gt.Equal(t, "Critical", out.Severity)
	})

	t.Run("JSON buried in prose", func(t *testing.T) {
		var out payload
		reply := "Here is my assessment:\n{\"severity\": \"Low\"}\nLet me know if you need more."
		gt.NoError(t, extractJSON(reply, &out)).Required()
		gt.Equal(t, "Low", out.Severity)
	})

	t.Run("empty reply", func(t *testing.T) {
		var out payload
		err := extractJSON("   ", &out)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrMalformedLLMResponse))
	})

	t.Run("no JSON object", func(t *testing.T) {
		var out payload
		err := extractJSON("I cannot classify this event.", &out)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrMalformedLLMResponse))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		var out payload
		err := extractJSON(`{"severity": }`, &out)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrMalformedLLMResponse))
	})
}

func TestStripCodeFences(t *testing.T) {
	gt.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	gt.Equal(t, "plain text", stripCodeFences("plain text"))
}
