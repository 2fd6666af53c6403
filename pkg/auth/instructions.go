package auth

import (
	"fmt"
	"strings"
)

// ShowSessionExtractionGuide displays step-by-step instructions for
// extracting the session cookie from a logged-in browser.
func ShowSessionExtractionGuide() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("INSTAGRAM SESSION TOKEN GUIDE")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()

	fmt.Println("This tool needs your Instagram session cookie to read your saved posts.")
	fmt.Println()

	fmt.Println("STEP 1: Open Instagram in your browser")
	fmt.Println("   - Go to https://www.instagram.com and log in")
	fmt.Println()

	fmt.Println("STEP 2: Open Developer Tools")
	fmt.Println("   - Chrome/Edge/Brave/Firefox: F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	fmt.Println("   - Safari: enable the Develop menu in Preferences, then Cmd+Option+I")
	fmt.Println()

	fmt.Println("STEP 3: Find the cookie")
	fmt.Println("   - Go to the 'Application' tab (Chrome) or 'Storage' tab (Firefox)")
	fmt.Println("   - Expand 'Cookies' and select 'https://www.instagram.com'")
	fmt.Println("   - Copy the value of the 'sessionid' cookie")
	fmt.Println("     (a long string containing %3A and %2C, e.g. 12345678%3Aabcdef...)")
	fmt.Println()

	fmt.Println("TIPS:")
	fmt.Println("   - Copy the entire value, without quotes or semicolons")
	fmt.Println("   - The cookie expires when you log out; re-run 'auth login' then")
	fmt.Println()

	fmt.Println("SECURITY:")
	fmt.Println("   - The session cookie gives full access to your account")
	fmt.Println("   - Never share it; this tool stores it in your system keychain")
	fmt.Println("     or an encrypted file")
	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide() {
	fmt.Println("\nQuick guide: F12 > Application/Storage tab > Cookies > instagram.com > copy 'sessionid'")
}
