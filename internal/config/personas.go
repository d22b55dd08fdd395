package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

type personaFile struct {
	Personas []domain.Persona `yaml:"personas"`
}

// LoadPersonas reads the persona voice definitions from a YAML file,
// keyed by lowercased persona name. A missing file falls back to the
// built-in defaults so the service can start on a bare runtime.
func LoadPersonas(path string) (map[string]domain.Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return personaMap(defaultPersonas()), nil
		}
		return nil, fmt.Errorf("read personas file: %w", err)
	}

	var pf personaFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse personas file: %w", err)
	}
	if len(pf.Personas) == 0 {
		return nil, fmt.Errorf("personas file %s defines no personas", path)
	}

	for _, p := range pf.Personas {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.SystemInstruction) == "" {
			return nil, fmt.Errorf("persona entries require name and system_instruction")
		}
	}
	return personaMap(pf.Personas), nil
}

func personaMap(personas []domain.Persona) map[string]domain.Persona {
	out := make(map[string]domain.Persona, len(personas))
	for _, p := range personas {
		out[strings.ToLower(strings.TrimSpace(p.Name))] = p
	}
	return out
}

func defaultPersonas() []domain.Persona {
	return []domain.Persona{
		{
			Name:     "street lawyer",
			Language: domain.LanguagePidgin,
			SystemInstruction: "Act like a street guy from Lagos. " +
				"Explain the [Legal Context] in pure Nigerian Pidgin English. " +
				"Do NOT use Yoruba words (like 'naa', 'ni', 'wipe'). " +
				"Use 'na', 'dey', 'we', 'dem'.",
			AnswerStarter:    "My guy, dis law talk say",
			NoGroundingReply: "My guy, I no fit find any section for di law wey match your question. I no go invent law for you.",
		},
		{
			Name:              "yoruba teacher",
			Language:          domain.LanguageYoruba,
			SystemInstruction: "Translate the main idea of the [Legal Context] into very simple Yoruba. Do not use big legal words.",
			AnswerStarter:     "Ofin yii so ni soki pe",
			NoGroundingReply:  "Mi o ri abala ofin kankan to ba ibeere yii mu.",
		},
		{
			Name:              "hausa teacher",
			Language:          domain.LanguageHausa,
			SystemInstruction: "Translate the main idea of the [Legal Context] into very simple Hausa.",
			AnswerStarter:     "Wannan dokar ta ce",
			NoGroundingReply:  "Ban sami wani sashe na doka da ya dace da wannan tambaya ba.",
		},
		{
			Name:     "igbo teacher",
			Language: domain.LanguageIgbo,
			SystemInstruction: "Translate the main idea of the [Legal Context] into simple Igbo. " +
				"Use 'Usoro Iwu' for Constitution. Use 'kachasi elu' for Supreme.",
			AnswerStarter:    "Usoro Iwu a kwuru na",
			NoGroundingReply: "Ahughi m ngalaba iwu o bula dabara na ajuju a.",
		},
		{
			Name:              "plain english",
			Language:          domain.LanguageEnglish,
			SystemInstruction: "You are a Nigerian legal assistant. Explain the [Legal Context] simply.",
			AnswerStarter:     "Basically, the law states that",
			NoGroundingReply:  "I could not find any statutory section relevant to this question, so I will not guess at the law.",
		},
	}
}
