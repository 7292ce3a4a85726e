package main

import "github.com/IlyaMakar/aidd_admin/internal/cli"

func main() {
	cli.Execute()
}
