package main

import (
	"log"

	debug "github.com/hyperledger-labs/yui-bridge-relayer/chains/debug/module"
	mock "github.com/hyperledger-labs/yui-bridge-relayer/chains/mock/module"
	"github.com/hyperledger-labs/yui-bridge-relayer/cmd"
)

func main() {
	if err := cmd.Execute(
		mock.Module{},
		debug.Module{},
	); err != nil {
		log.Fatal(err)
	}
}
