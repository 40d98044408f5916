package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/model"
)

// ErrTagMalformedResponse marks replies that failed JSON extraction or
// schema validation
var ErrTagMalformedResponse = goerr.NewTag("malformed_llm_response")

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON recovers a JSON object from a model reply and decodes it into
// out. Models wrap JSON in markdown fences or prose more often than not, so
// extraction is three steps: strip code fences, take the first {...} span,
// then unmarshal. Any failure is a typed malformed-response error; there is
// no silent fallback object.
func extractJSON(reply string, out any) error {
	if strings.TrimSpace(reply) == "" {
		return goerr.Wrap(model.ErrMalformedLLMResponse, "empty reply",
			goerr.T(ErrTagMalformedResponse))
	}

	cleaned := stripCodeFences(reply)

	block := jsonBlockRe.FindString(cleaned)
	if block == "" {
		return goerr.Wrap(model.ErrMalformedLLMResponse, "no JSON object in reply",
			goerr.T(ErrTagMalformedResponse),
			goerr.V("reply", truncate(reply, 256)),
		)
	}

	if err := json.Unmarshal([]byte(block), out); err != nil {
		return goerr.Wrap(model.ErrMalformedLLMResponse, "invalid JSON in reply",
			goerr.T(ErrTagMalformedResponse),
			goerr.V("cause", err.Error()),
			goerr.V("reply", truncate(block, 256)),
		)
	}
	return nil
}

// stripCodeFences removes markdown code fences around the reply body
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
