package banner

import (
	"fmt"

	"messengerdb/pkg/config"
)

const banner = `
███╗   ███╗███████╗███████╗███████╗███████╗███╗   ██╗ ██████╗ ███████╗██████╗     ██████╗ ██████╗
████╗ ████║██╔════╝██╔════╝██╔════╝██╔════╝████╗  ██║██╔════╝ ██╔════╝██╔══██╗    ██╔══██╗██╔══██╗
██╔████╔██║█████╗  ███████╗███████╗█████╗  ██╔██╗ ██║██║  ███╗█████╗  ██████╔╝    ██║  ██║██████╔╝
██║╚██╔╝██║██╔══╝  ╚════██║╚════██║██╔══╝  ██║╚██╗██║██║   ██║██╔══╝  ██╔══██╗    ██║  ██║██╔══██╗
██║ ╚═╝ ██║███████╗███████║███████║███████╗██║ ╚████║╚██████╔╝███████╗██║  ██║    ██████╔╝██████╔╝
╚═╝     ╚═╝╚══════╝╚══════╝╚══════╝╚══════╝╚═╝  ╚═══╝ ╚═════╝ ╚══════╝╚═╝  ╚═╝    ╚═════╝ ╚═════╝
`

// Print shows the startup banner with the effective runtime settings.
func Print(eff config.EffectiveConfig, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", eff.Addr)
	fmt.Printf("DB Path:  %s\n", eff.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if eff.Config != nil {
		fmt.Printf("Pages:    default=%d max=%d\n",
			eff.Config.Pagination.DefaultPageSize, eff.Config.Pagination.MaxPageSize)
		if eff.Config.Sweeper.Enabled {
			fmt.Printf("Sweeper:  enabled (cron=%s)\n", eff.Config.Sweeper.Cron)
		} else {
			fmt.Println("Sweeper:  disabled")
		}
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/users                          - Register a user")
	fmt.Println("POST /v1/messages                       - Send a message (sender_id, receiver_id, content)")
	fmt.Println("GET  /v1/users/{id}/conversations       - Conversations by recency (cursor, page_size)")
	fmt.Println("GET  /v1/conversations/{id}             - Conversation details")
	fmt.Println("GET  /v1/conversations/{id}/messages    - Messages newest-first (cursor, page_size, before)")
	fmt.Println("GET  /v1/users/{id}/messages            - All messages for a user")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/messages' -d '{\"sender_id\":\"u1\",\"receiver_id\":\"u2\",\"content\":\"hi\"}'\n", eff.Addr)
	fmt.Printf("curl 'http://localhost%s/v1/users/u1/conversations?page_size=10'\n", eff.Addr)
	fmt.Println()
}
