package main

import "voicestage/voicestage"

func main() {
	voicestage.Run()
}
