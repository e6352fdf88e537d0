package main

import "github.com/vibast-solutions/ms-go-payment-approvals/cmd"

func main() {
	cmd.Execute()
}
