package catalog

import (
	"fmt"

	"digital.vasic.provision/pkg/adapter"
	"digital.vasic.provision/pkg/registry"
	"digital.vasic.provision/pkg/task"
)

// Registry keys probed or written by the workstation checklist.
const (
	keySystemRestore = `SOFTWARE\Microsoft\Windows NT\CurrentVersion\SystemRestore`
	keyDaemonTools   = `SOFTWARE\DT Soft\DAEMON Tools Pro\Data`
	keyVisualStudio  = `SOFTWARE\Microsoft\VisualStudio\8.0`
	keyAcrobat       = `SOFTWARE\Adobe\Adobe Acrobat\9.0\Installer`
	keyLiveMesh      = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\{DCB4E1D9-B187-4B54-971E-1478485C9A53}`
	keyOffice        = `Software\Microsoft\Office\14.0\Common\InstallRoot`
	keyFlashPlayer   = `SOFTWARE\Macromedia\FlashPlayerActiveX`
	keyExplorer      = `Software\Microsoft\Windows\CurrentVersion\Explorer`
	keyExplorerAdv   = `Software\Microsoft\Windows\CurrentVersion\Explorer\Advanced`
)

// Setting keys read from the configuration values.
const (
	SettingThirdSrc = "thirdsrc"
	SettingIMEDir   = "ime_dir"
)

// Workstation returns the developer workstation checklist in
// execution order. Order matters: later items may rely on
// products detected by earlier ones.
func Workstation() []*task.Task {
	return []*task.Task{
		RegistryValue("disable system restore",
			adapter.ScopeMachine, keySystemRestore, "DisableSR", adapter.DWORDValue(1)),

		InstalledProbe("install daemon tools", keyDaemonTools, "HP"),
		InstalledProbe("install visual studio 2005 sp1", keyVisualStudio, "InstallDir"),

		AutorunShortcut("start autoit at login", "autoit", ShortcutSpec{
			File:    "AutoIt.lnk",
			Target:  ToolsPath("psoft", "AutoIt", "AutoIt3.exe"),
			WorkDir: ToolsPath("psoft", "AutoIt"),
			Args:    `"hotkey.au3"`,
		}),
		AutorunShortcut("start handyrun at login", "handyrun", ShortcutSpec{
			File:    "HandyRun.lnk",
			Target:  ToolsPath("HandyRun", "HandyRun.exe"),
			WorkDir: ToolsPath("HandyRun"),
		}),

		Fonts("install fonts megatops procoder, anonymous",
			"Anonymous.ttf", "MegatopsProCoder1.0.fon"),

		InstalledProbe("install acrobat", keyAcrobat, "Path"),
		InstalledProbe("install live mesh", keyLiveMesh, "DisplayName"),

		PathEntries("set path", adapter.ScopeMachine,
			ToolsPath("svn", "bin"),
			ToolsPath("cvsnt"),
			ToolsPath("psoft", "cmdline"),
		),

		EnvVar("set BAIDUHI_THIRDSRC", "BAIDUHI_THIRDSRC",
			Setting(SettingThirdSrc, `d:\IMSource\app\gensoft\dialog\thirdsrc`),
			adapter.ScopeMachine),

		DirectoryProbe("install input method",
			Setting(SettingIMEDir, `C:\Program Files\freeime`)),

		InstalledProbe("install office", keyOffice, "Path"),

		withDescription(
			RegistryValue("always show tray icons",
				adapter.ScopeUser, keyExplorer, "EnableAutoTray", adapter.DWORDValue(0)),
			"takes effect after explorer.exe restarts",
		),

		Reminder("activate windows", "activate the operating system license"),

		InstalledProbe("install flash player", keyFlashPlayer, "Path"),

		RegistryValue("show file extensions",
			adapter.ScopeUser, keyExplorerAdv, "HideFileExt", adapter.DWORDValue(0)),

		Reminder("add common styles to normal.dotm", "import the shared Word styles"),
		Reminder("import cvs settings", "import the exported CVS client settings"),
		Reminder("import vc settings", "import the exported Visual Studio settings"),

		FileCopy("copy autoexp.dat into visual studio",
			ConfPath("autoexp.dat"),
			FromKeyValue(adapter.ScopeMachine, keyVisualStudio, "InstallDir",
				`^(.*)\\IDE\\?$`, `${1}\Packages\Debugger\autoexp.dat`),
		),
	}
}

// Register adds tasks to reg in order.
func Register(reg registry.Registry, tasks []*task.Task) error {
	for i, t := range tasks {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("register task %d: %w", i, err)
		}
	}
	return nil
}

func withDescription(t *task.Task, description string) *task.Task {
	t.Description = description
	return t
}
