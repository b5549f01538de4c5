package main

import (
	"strings"
	"sync"

	"ai-videos-backend/internal/apiclient"
)

type commandContext struct {
	configFlag *string
	apiURLFlag *string
	apiKeyFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     studioConfig
	configErr  error
}

func newCommandContext(configFlag, apiURLFlag, apiKeyFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiURLFlag: apiURLFlag,
		apiKeyFlag: apiKeyFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (studioConfig, error) {
	c.configOnce.Do(func() {
		cfg, err := loadConfig(deref(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if v := strings.TrimSpace(deref(c.apiURLFlag)); v != "" {
			cfg.APIURL = strings.TrimRight(v, "/")
		}
		if v := strings.TrimSpace(deref(c.apiKeyFlag)); v != "" {
			cfg.APIKey = v
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) client() (*apiclient.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return apiclient.New(cfg.APIURL, cfg.APIKey), nil
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
