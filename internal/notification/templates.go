package notification

import (
	"bytes"
	_ "embed"
	"fmt"
	"maps"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// Template keys used by the workflow.
const (
	KeyDocumentSubmittedRequester = "document.submitted.requester"
	KeyDocumentSubmittedRT        = "document.submitted.rt"
	KeyResidentVerificationNeeded = "resident.verification_needed"
	KeyRecipientEnrolledResident  = "recipient.enrolled.resident"
	KeyRecipientEnrolledRT        = "recipient.enrolled.rt"
	KeyComplaintFiled             = "complaint.filed"
	KeyComplaintRespond           = "complaint.respond"
)

// DocumentKey returns the key for a document transition ("document.approve").
func DocumentKey(action string) string {
	return "document." + action
}

// TemplateData is the set of values templates may reference.
type TemplateData struct {
	ResidentName string
	DocumentType string
	Purpose      string
	Reason       string
	Program      string
	Title        string
	Status       string
	Response     string
	Locality     string
	Actor        string
}

type templateEntry struct {
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
}

type compiled struct {
	title   *template.Template
	message *template.Template
}

// Templates renders titles and messages by key.
type Templates struct {
	entries map[string]compiled
}

// DefaultTemplates returns the embedded Indonesian templates.
func DefaultTemplates() *Templates {
	t, err := parseTemplates(defaultTemplatesYAML, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded notification templates: %v", err))
	}
	return t
}

// LoadTemplates returns the embedded templates overridden by the YAML file at
// path. An empty path returns the defaults.
func LoadTemplates(path string) (*Templates, error) {
	if path == "" {
		return DefaultTemplates(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notification templates: %w", err)
	}
	return parseTemplates(defaultTemplatesYAML, raw)
}

func parseTemplates(base []byte, override []byte) (*Templates, error) {
	merged := map[string]templateEntry{}
	if err := yaml.Unmarshal(base, &merged); err != nil {
		return nil, fmt.Errorf("parse notification templates: %w", err)
	}
	if override != nil {
		extra := map[string]templateEntry{}
		if err := yaml.Unmarshal(override, &extra); err != nil {
			return nil, fmt.Errorf("parse notification template overrides: %w", err)
		}
		maps.Copy(merged, extra)
	}

	t := &Templates{entries: make(map[string]compiled, len(merged))}
	for key, entry := range merged {
		if entry.Title == "" || entry.Message == "" {
			return nil, fmt.Errorf("notification template %q needs title and message", key)
		}
		title, err := template.New(key + ".title").Option("missingkey=error").Parse(entry.Title)
		if err != nil {
			return nil, fmt.Errorf("parse template %q title: %w", key, err)
		}
		message, err := template.New(key + ".message").Option("missingkey=error").Parse(entry.Message)
		if err != nil {
			return nil, fmt.Errorf("parse template %q message: %w", key, err)
		}
		t.entries[key] = compiled{title: title, message: message}
	}
	return t, nil
}

// Render produces the title and message for key.
func (t *Templates) Render(key string, data TemplateData) (string, string, error) {
	entry, ok := t.entries[key]
	if !ok {
		return "", "", fmt.Errorf("no notification template %q", key)
	}
	var title, message bytes.Buffer
	if err := entry.title.Execute(&title, data); err != nil {
		return "", "", fmt.Errorf("render %q title: %w", key, err)
	}
	if err := entry.message.Execute(&message, data); err != nil {
		return "", "", fmt.Errorf("render %q message: %w", key, err)
	}
	return title.String(), message.String(), nil
}
