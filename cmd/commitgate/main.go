package main

import (
	"github.com/LucerneSecurity/commitgate/internal/cmd"
	"github.com/LucerneSecurity/commitgate/internal/cmd/common"
)

func main() {
	common.Run(cmd.NewRootCmd())
}
