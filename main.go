// websmith keeps per-site browser profiles: display flags, injected
// stylesheets and scripts, and navigation rules, applied to a Chromium
// window driven through the DevTools protocol.
package main

import (
	"context"

	"github.com/lazyvibe/websmith/cmd"
)

func main() {
	cmd.Execute(context.Background())
}
