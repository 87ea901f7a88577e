package main

import "github.com/Daltonicc/SwiftPaperBot/internal/app"

func main() {
	app.Main()
}
