package main

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/halfmoonlab/supportdesk/llm"
	"github.com/halfmoonlab/supportdesk/providers/openai"
)

func llmEndpointFromViper() string {
	return strings.TrimSpace(viper.GetString("llm.endpoint"))
}

func llmAPIKeyFromViper() string {
	if key := strings.TrimSpace(viper.GetString("llm.api_key")); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

func llmModelFromViper() string {
	return strings.TrimSpace(viper.GetString("llm.model"))
}

func llmClientFromViper(apiKey string) llm.Client {
	return openai.New(llmEndpointFromViper(), apiKey)
}
