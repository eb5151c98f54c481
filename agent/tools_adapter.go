package agent

import (
	"github.com/halfmoonlab/supportdesk/llm"
	"github.com/halfmoonlab/supportdesk/tools"
)

func buildLLMTools(registry *tools.Registry) []llm.Tool {
	if registry == nil {
		return nil
	}
	all := registry.All()
	out := make([]llm.Tool, 0, len(all))
	for _, t := range all {
		out = append(out, llm.Tool{
			Name:           t.Name(),
			Description:    t.Description(),
			ParametersJSON: t.ParameterSchema(),
		})
	}
	return out
}
