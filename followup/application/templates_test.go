package application

import (
	"testing"

	customerDomain "github.com/AzielCF/az-crm/customers/domain"
	"github.com/AzielCF/az-crm/followup/domain"
	messagingDomain "github.com/AzielCF/az-crm/messaging/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateCatalog_Body(t *testing.T) {
	c, err := NewTemplateCatalog(nil, "es")
	require.NoError(t, err)

	body, err := c.Body(domain.TemplateQuotePending48h, customerDomain.Customer{FirstName: " Ana ", Product: "bloque de melaza"})
	require.NoError(t, err)
	assert.Contains(t, body, "Hola Ana, ¿cómo estás?")
	assert.Contains(t, body, "cotización de bloque de melaza")

	body, err = c.Body(domain.TemplateSatisfaction14d, customerDomain.Customer{})
	require.NoError(t, err)
	assert.Contains(t, body, "Hola, ¿cómo estás?")
	assert.Contains(t, body, defaultProduct)

	_, err = c.Body("UNKNOWN", customerDomain.Customer{})
	assert.Error(t, err)
}

func TestTemplateCatalog_SubjectAndChatTemplate(t *testing.T) {
	c, err := NewTemplateCatalog(map[string]string{"no_response_24h": "followup_no_response"}, "es_AR")
	require.NoError(t, err)

	assert.Equal(t, "Encuesta de satisfacción", c.Subject(domain.TemplateSatisfaction14d))
	assert.Empty(t, c.Subject("UNKNOWN"))

	assert.Equal(t, &messagingDomain.TemplateRef{Name: "followup_no_response", Language: "es_AR"}, c.ChatTemplate(domain.TemplateNoResponse24h))
	assert.Nil(t, c.ChatTemplate(domain.TemplateQuotePending48h))
}
