// Command congregation-auth runs the Congregation account service.
//
//go:generate swag init -g ../../internal/auth/http/router.go -o ../../api/auth --packageName auth --parseDependency
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
