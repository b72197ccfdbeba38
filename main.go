package main

import (
	"fmt"

	_ "github.com/agentuity/go-memoize/cache"
	_ "github.com/agentuity/go-memoize/chunk"
	_ "github.com/agentuity/go-memoize/compress"
	_ "github.com/agentuity/go-memoize/config"
	_ "github.com/agentuity/go-memoize/keys"
	_ "github.com/agentuity/go-memoize/logger"
	_ "github.com/agentuity/go-memoize/memoize"
	_ "github.com/agentuity/go-memoize/serial"
	_ "github.com/agentuity/go-memoize/telemetry"
)

func main() {
	fmt.Println("Hi")
}
