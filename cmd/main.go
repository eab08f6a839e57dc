/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"fmt"

	"github.com/talesofai/nietest/pkg/server"
)

func main() {
	s, err := server.NewServer()
	if err != nil {
		fmt.Println("failed to new server, err: ", err.Error())
		return
	}
	s.Start()
}
