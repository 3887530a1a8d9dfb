package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Settings  TenantSettings `json:"settings"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type TenantSettings struct {
	Timezone     string              `json:"timezone"`
	Language     string              `json:"language"`
	Integrations IntegrationSettings `json:"integrations"`
}

type IntegrationSettings struct {
	Zendesk ZendeskIntegration `json:"zendesk"`
	Sunco   SuncoIntegration   `json:"sunco"`
}

type ZendeskIntegration struct {
	Enabled       bool   `json:"enabled"`
	Subdomain     string `json:"subdomain"`
	APIToken      string `json:"apiToken"`
	WebhookSecret string `json:"webhookSecret"`
}

type SuncoIntegration struct {
	Enabled       bool   `json:"enabled"`
	AppID         string `json:"appId"`
	APIToken      string `json:"apiToken"`
	WebhookSecret string `json:"webhookSecret"`
}

func DefaultTenantSettings() TenantSettings {
	return TenantSettings{
		Timezone: "UTC",
		Language: "pt-BR",
	}
}
