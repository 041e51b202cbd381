package main

import (
	"github.com/aunum/log"

	"github.com/rlkit/valuerl/examples"
)

func main() {
	if err := examples.DoubleDQNCartpole(); err != nil {
		log.Fatalf("training failed: %v", err)
	}
}
