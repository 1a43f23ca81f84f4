// Package autoload initializes the global logger from environment variables
// as a side effect of import.
package autoload

import (
	configx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/config"
	logx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
