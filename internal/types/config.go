package types

// Config is the resolved CLI configuration. Keys mirror the viper keys
// read from flags, PRODUCTMD_* variables and productmd.yaml.
type Config struct {
	LogLevel       string   `yaml:"log_level"`
	OutputVersion  string   `yaml:"output_version"`
	Encoding       Encoding `yaml:"encoding"`
	ZeroCopy       bool     `yaml:"zero_copy"`
	HTTPRetries    int      `yaml:"http_retries"`
	HTTPTimeoutSec int      `yaml:"http_timeout_sec"`
}
