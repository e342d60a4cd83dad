package config

// Engine holds the settings of the schema synchronization engine.
type Engine struct {
	// Namespace owns the synthesized response schemas and prefixes their tables.
	Namespace string `mapstructure:"namespace" default:"responses"`
	// AuthoringNamespace is the namespace of the definition models the build gate waits for.
	AuthoringNamespace string `mapstructure:"authoring_namespace" default:"surveymaker"`
	// DefinitionsPrefix is the bucket prefix holding importable definition documents.
	DefinitionsPrefix string `mapstructure:"definitions_prefix" default:"definitions/"`
	// PublishOnChange publishes rebuilt fingerprints to the shared cache.
	PublishOnChange bool `mapstructure:"publish_on_change" default:"true"`
	// Bootstrap builds every response table at startup.
	Bootstrap bool `mapstructure:"bootstrap" default:"true"`
}
