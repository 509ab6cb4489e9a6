// @title        Events Administration API
// @version      1.0
// @description  Event department tasks, workflow and reminders.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import "eventcrm/internal/app"

func main() {
	app.Run()
}
