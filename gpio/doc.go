// Copyright (c) 2021-2024 Melbourne Instruments, Australia

/*
Package gpio gives direct access to the BCM2711 GPIO registers of a
Raspberry Pi 4 by mapping the GPIO register page from /dev/mem.

The mapped page is exposed only through named pin operations (configure,
set, clear, read); register offsets are fixed constants and no arbitrary
offset arithmetic is possible from outside the package. Changes are shared
with the kernel mapping, so writes reach the hardware immediately.

Root privileges are required to open /dev/mem.
*/
package gpio
