package main

import "github.com/bytescript/bytescript-rtc/internal/bootstrap"

func main() {
	bootstrap.Run()
}
