package conv

import (
	"bytes"
	"fmt"
	"log"
	"os"
)

func ExampleHexArrayToBytes() {
	// exit(1) syscall shellcode by Charles Stevenson:
	// http://shell-storm.org/shellcode/files/shellcode-55.php
	cArrayContents := []byte(
		`/*  _exit(1); linux/x86 by core */
// 7 bytes _exit(1) ... 'cause we're nice >:) by core
"\x31\xc0"              // xor  %eax,%eax
"\x40"                  // inc  %eax
"\x89\xc3"              // mov  %eax,%ebx
"\xcd\x80"              // int  $0x80
`)

	exit1Bytes, err := HexArrayToBytes(bytes.NewReader(cArrayContents))
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Printf("0x%x\n", exit1Bytes)

	// Output: 0x31c04089c3cd80
}

func ExampleHexStringToBytes() {
	for _, str := range []string{"2f62696e", `\x2f\x62\x69\x6e`, "0x2f 0x62 0x69 0x6e"} {
		b, err := HexStringToBytes(str)
		if err != nil {
			log.Fatalln(err)
		}

		fmt.Printf("%s\n", b)
	}

	// Output:
	// /bin
	// /bin
	// /bin
}

func ExampleBytesToGoSliceFormat() {
	err := BytesToGoSliceFormat([]byte("%6c%7$hhn"), false, os.Stdout)
	if err != nil {
		log.Fatalln(err)
	}

	// Output:
	// []byte{
	// 	0x25, 0x36, 0x63, 0x25, 0x37, 0x24, 0x68, 0x68, 0x6e,
	// }
}

func ExampleBytesToCStringFormat() {
	err := BytesToCStringFormat([]byte("%6c\x00"), true, os.Stdout)
	if err != nil {
		log.Fatalln(err)
	}

	// Output: "\x25\x36\x63\x00"
}
