// Package telegram registers the "telegram" module, the service provider
// that builds the shared Bot API client from configuration and binds it
// in the application container.
//
// Configuration:
//
//	modules:
//	  telegram:
//	    token: ${TELEGRAM_BOT_TOKEN}
//	    bot_username: my_bot
//	    chats:
//	      default: -1001234567890
//	      ops: "@ops_channel"
//	    async: false
//	    verify_on_start: true
//
// Other modules reach the client through FromContext.
package telegram
