package main

import (
	"github.com/0ppliger/oam-broker/internal/server"
	"github.com/0ppliger/oam-broker/internal/util"
	"github.com/0ppliger/oam-broker/pkg/logger"
	"github.com/0ppliger/oam-broker/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
