package spiconn

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// spiIOCMessage mirrors the SPI_IOC_MESSAGE(N) macro from
// linux/spi/spidev.h: encodes the transfer count into the ioctl request.
func spiIOCMessage(n int) uintptr {
	const iocWrite = 1
	const sizeofTransfer = 32 // sizeof(struct spi_ioc_transfer)
	size := uintptr(n * sizeofTransfer)
	return (uintptr(iocWrite) << 30) | (uintptr('k') << 8) | uintptr(0) | (size << 16)
}

func ioctlSetU32(fd int, req uintptr, val uint32) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&val)))
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlSetU8(fd int, req uintptr, val uint8) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&val)))
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlPtr(fd int, req uintptr, ptr *spiIOCTransfer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(ptr)))
	if errno != 0 {
		return errno
	}
	return nil
}

func uintptrOf(b *byte) uintptr {
	return uintptr(unsafe.Pointer(b))
}
