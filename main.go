package main

import "Scorekeep/cmd"

// @title Scorekeep API
// @version 1.0
// @description Score keeping server for Chkan, S7ab and Jaki card games
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	cmd.Execute()
}
