package gemini

import (
	"fmt"
	"strings"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

const translatePromptTemplate = `You are a language specialist for Nigerian languages.
Identify the language of the user text below as exactly one of:
english, pidgin, yoruba, hausa, igbo.
Then translate the text into plain English. If the text is already
English, return it unchanged as the translation.

Respond with a single JSON object and nothing else:
{"language": "<language>", "english": "<english translation>"}

User text:
%s`

const judgePromptTemplate = `You are a strict evaluator of legal question answering.
You are given a user question, the statute excerpts that were retrieved
for it, and the answer that was delivered to the user.

Score how faithfully the answer is grounded in the excerpts, from 0 to
100. An answer that invents obligations, sections or figures not present
in the excerpts must score low, even if it sounds plausible. An answer
that accurately restates what the excerpts say, in any dialect or
register, must score high. Ignore style and language choice.

Respond with a single JSON object and nothing else:
{"score": <0-100 integer>, "rationale": "<one or two sentences>"}

Question:
%s

Statute excerpts:
%s

Delivered answer:
%s`

func buildTranslatePrompt(text string) string {
	return fmt.Sprintf(translatePromptTemplate, text)
}

func buildJudgePrompt(queryText, contextText, answerText string) string {
	return fmt.Sprintf(judgePromptTemplate, queryText, contextText, answerText)
}

// extractJSONObject cuts the first top-level JSON object out of a model
// response, tolerating markdown fences and prose around it.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func parseLanguage(s string) domain.Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "english":
		return domain.LanguageEnglish
	case "pidgin":
		return domain.LanguagePidgin
	case "yoruba":
		return domain.LanguageYoruba
	case "hausa":
		return domain.LanguageHausa
	case "igbo":
		return domain.LanguageIgbo
	default:
		return domain.LanguageUnknown
	}
}

// ensureStarter forces the persona's fixed opening phrase onto the
// answer when the model dropped it, and collapses a doubled starter when
// the model echoed the forced prefix.
func ensureStarter(persona domain.Persona, text string) string {
	starter := strings.TrimSpace(persona.AnswerStarter)
	answer := strings.TrimSpace(text)
	if starter == "" || answer == "" {
		return answer
	}

	lowerAnswer := strings.ToLower(answer)
	lowerStarter := strings.ToLower(starter)
	if strings.HasPrefix(lowerAnswer, lowerStarter) {
		rest := strings.TrimSpace(answer[len(starter):])
		if strings.HasPrefix(strings.ToLower(rest), lowerStarter) {
			rest = strings.TrimSpace(rest[len(starter):])
		}
		if rest == "" {
			return starter
		}
		return starter + " " + rest
	}
	return starter + " " + answer
}
