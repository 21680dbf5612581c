package main

import "kpim/internal/app/server"

func main() {
	server.Run()
}
