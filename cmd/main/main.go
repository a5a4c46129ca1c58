package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/example/plugin-terser/cmd"
)

func main() {
	if err := cmd.Execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		logrus.Fatalf("Error: %v", err)
	}
}
