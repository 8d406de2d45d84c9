package application

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	customerDomain "github.com/AzielCF/az-crm/customers/domain"
	"github.com/AzielCF/az-crm/followup/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
)

const defaultProduct = "nuestros productos"

var (
	templateBodies = map[domain.TemplateID]string{
		domain.TemplateNoResponse24h: `Hola{{with .FirstName}} {{.}}{{end}}, ¿cómo estás?
Te habíamos enviado la info de {{.Product}}. Si tenés alguna duda o querés que te lo coticemos, estamos para ayudarte.
¡Contanos si te interesa avanzar o si preferís que lo retomemos más adelante!`,
		domain.TemplateQuotePending48h: `Hola{{with .FirstName}} {{.}}{{end}}, ¿cómo estás?
Te habíamos pasado la cotización de {{.Product}}. Solo queríamos saber si pudiste verla o si quedó alguna duda.
Si necesitás ajustar algo o querés que lo repasemos juntos, contanos.`,
		domain.TemplateSatisfaction14d: `Hola{{with .FirstName}} {{.}}{{end}}, ¿cómo estás? Pasaron unos días desde tu compra de {{.Product}} y queremos saber cómo fue tu experiencia. ¡Gracias por confiar en nosotros!`,
	}

	templateSubjects = map[domain.TemplateID]string{
		domain.TemplateNoResponse24h:   "Seguimiento de tu consulta",
		domain.TemplateQuotePending48h: "¿Pudiste ver la cotización?",
		domain.TemplateSatisfaction14d: "Encuesta de satisfacción",
	}
)

type templateData struct {
	FirstName string
	LastName  string
	Product   string
}

// TemplateCatalog renders the static follow-up messages.
type TemplateCatalog struct {
	bodies map[domain.TemplateID]*template.Template
	// template id -> approved chat template name
	chatTemplates map[domain.TemplateID]string
	language      string
}

// NewTemplateCatalog parses every body once. chatTemplates maps template ids
// (any case) to provider template names; it may be nil.
func NewTemplateCatalog(chatTemplates map[string]string, language string) (*TemplateCatalog, error) {
	c := &TemplateCatalog{
		bodies:        make(map[domain.TemplateID]*template.Template, len(templateBodies)),
		chatTemplates: make(map[domain.TemplateID]string, len(chatTemplates)),
		language:      language,
	}
	for id, body := range templateBodies {
		tpl, err := template.New(string(id)).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", id, err)
		}
		c.bodies[id] = tpl
	}
	for id, name := range chatTemplates {
		c.chatTemplates[domain.TemplateID(strings.ToUpper(strings.TrimSpace(id)))] = name
	}
	return c, nil
}

// Body renders the message for customer.
func (c *TemplateCatalog) Body(id domain.TemplateID, customer customerDomain.Customer) (string, error) {
	tpl, ok := c.bodies[id]
	if !ok {
		return "", fmt.Errorf("no template configured for %s", id)
	}
	data := templateData{
		FirstName: strings.TrimSpace(customer.FirstName),
		LastName:  strings.TrimSpace(customer.LastName),
		Product:   strings.TrimSpace(customer.Product),
	}
	if data.Product == "" {
		data.Product = defaultProduct
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", id, err)
	}
	return buf.String(), nil
}

// Subject returns the email subject for id, or "".
func (c *TemplateCatalog) Subject(id domain.TemplateID) string {
	return templateSubjects[id]
}

// ChatTemplate returns the provider template for id, or nil when the chat
// channel should send free text.
func (c *TemplateCatalog) ChatTemplate(id domain.TemplateID) *messagingDomain.TemplateRef {
	name, ok := c.chatTemplates[id]
	if !ok || name == "" {
		return nil
	}
	return &messagingDomain.TemplateRef{Name: name, Language: c.language}
}
