package main

import (
	"fmt"

	"github.com/spf13/pflag"
)

// mustBind binds a flag to a config key. It only fails on programmer error.
func mustBind(key string, f *pflag.Flag) {
	if f == nil {
		panic(fmt.Sprintf("flag for %s not defined", key))
	}
	if err := flags.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("failed to bind %s: %v", key, err))
	}
}
