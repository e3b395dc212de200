// Command toolpunk はToolpunk APIサーバー・ワーカーの実行バイナリ。
//
//	toolpunk [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/toolpunk/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "toolpunk: %v\n", err)
		os.Exit(1)
	}
}
