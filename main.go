package main

import (
	"github.com/rs/zerolog/log"

	"example.com/mise/clients/counter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}
