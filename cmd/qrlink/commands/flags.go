package commands

import "github.com/spf13/pflag"

// bind ties an unset flag to its config key so viper's env and file values
// still apply, while an explicit flag wins.
func bind(f *pflag.Flag, key string) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}
