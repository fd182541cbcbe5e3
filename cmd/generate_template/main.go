package main

import (
	"flag"

	"crm-web/internal/service"
	"crm-web/internal/utils"
)

func main() {
	out := flag.String("o", "client_import_template.xlsx", "output path")
	flag.Parse()

	log := utils.GetLogger()
	if err := service.NewExcelService().GenerateClientTemplate(*out); err != nil {
		log.Fatalf("Failed to generate template: %v", err)
	}
	log.WithField("path", *out).Info("Client import template written")
}
