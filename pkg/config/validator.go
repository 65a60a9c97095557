package config

import "fmt"

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port必须在1-65535之间: %d", c.HTTPPort)
	}
	if c.API.EmailsURL == "" {
		return fmt.Errorf("api.emails_url不能为空")
	}
	if c.API.RespondURL == "" {
		return fmt.Errorf("api.respond_url不能为空")
	}
	if c.Scheduler.Concurrency <= 0 {
		return fmt.Errorf("scheduler.concurrency必须大于0: %d", c.Scheduler.Concurrency)
	}
	if c.Scheduler.SafetyMargin < 0 {
		return fmt.Errorf("scheduler.safety_margin不能为负数")
	}
	if c.Scheduler.GeneratorTimeout < c.Generator.DelayMax {
		return fmt.Errorf("scheduler.generator_timeout(%v)不能小于generator.delay_max(%v)",
			c.Scheduler.GeneratorTimeout, c.Generator.DelayMax)
	}
	if c.Generator.DelayMin > c.Generator.DelayMax {
		return fmt.Errorf("generator.delay_min(%v)不能大于delay_max(%v)",
			c.Generator.DelayMin, c.Generator.DelayMax)
	}

	switch c.Generator.Type {
	case "", "mock":
	case "openai":
		if c.Generator.OpenAIAPIKey == "" {
			return fmt.Errorf("generator.type为openai时必须配置openai_api_key")
		}
	default:
		return fmt.Errorf("不支持的generator.type: %s", c.Generator.Type)
	}

	switch c.Database.Type {
	case "", "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("不支持的database.type: %s", c.Database.Type)
	}

	if c.Sink.MaxRetries <= 0 {
		return fmt.Errorf("sink.max_retries必须大于0: %d", c.Sink.MaxRetries)
	}

	return nil
}
