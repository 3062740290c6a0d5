package scan

// UI 是扫描流程驱动的展示层，渲染细节由实现方决定。
type UI interface {
	Alert(message string)
	ShowWallet(address string)
	SetScanEnabled(enabled bool)
	ShowCarvUID(uid string)
	ShowLoading(message string)
	Render(result Result)
}

type nopUI struct{}

func (nopUI) Alert(string)        {}
func (nopUI) ShowWallet(string)   {}
func (nopUI) SetScanEnabled(bool) {}
func (nopUI) ShowCarvUID(string)  {}
func (nopUI) ShowLoading(string)  {}
func (nopUI) Render(Result)       {}
