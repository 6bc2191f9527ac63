// Package config loads and validates the dispatcher's YAML configuration.
//
// Values may reference the environment with ${VAR} or ${VAR:-default};
// "$$" yields a literal dollar sign. Keys absent from the file keep the
// values from DefaultConfig and unknown keys are rejected.
//
//	cfg, err := config.LoadAndValidate("dispatcher.yaml")
//	if err != nil {
//	    return err
//	}
//
// A Watcher reloads the file on change and passes each valid configuration
// to a callback. A failed load or a rejected callback leaves the previous
// configuration in force.
package config
